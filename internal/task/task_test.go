package task

import (
	"errors"
	"strings"
	"testing"
)

func TestWaitReturnsResult(t *testing.T) {
	release := make(chan struct{})
	tk := Go(func() (int, error) {
		<-release
		return 42, nil
	})
	if tk.Finished() {
		t.Fatal("task reported finished before its function returned")
	}
	close(release)

	got, err := tk.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != 42 {
		t.Fatalf("Wait = %d, want 42", got)
	}
	if !tk.Finished() {
		t.Fatal("task not finished after Wait returned")
	}
	// Wait is repeatable.
	if got, _ := tk.Wait(); got != 42 {
		t.Fatalf("second Wait = %d, want 42", got)
	}
}

func TestWaitReturnsError(t *testing.T) {
	want := errors.New("boom")
	tk := Go(func() (struct{}, error) { return struct{}{}, want })
	if _, err := tk.Wait(); !errors.Is(err, want) {
		t.Fatalf("Wait error = %v, want %v", err, want)
	}
}

func TestPanicBecomesError(t *testing.T) {
	tk := Go(func() (int, error) { panic("bad chunk") })
	<-tk.Done()
	_, err := tk.Wait()
	if err == nil || !strings.Contains(err.Error(), "bad chunk") {
		t.Fatalf("Wait error = %v, want recovered panic", err)
	}
	if !tk.Finished() {
		t.Fatal("panicked task must still report finished")
	}
}
