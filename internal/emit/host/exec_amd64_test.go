//go:build linux && amd64

package host

import "testing"

func TestLoadAndCall(t *testing.T) {
	// mov rax, rdi; add rax, rsi; ret
	code := []byte{0x48, 0x89, 0xf8, 0x48, 0x01, 0xf0, 0xc3}

	c, err := Load(code)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer c.Close()

	if c.Entry() == 0 {
		t.Fatalf("entry is zero")
	}
	if got := c.Call(2, 3); got != 5 {
		t.Fatalf("call(2, 3) = %d, want 5", got)
	}
	if got := c.Call(40, 2); got != 42 {
		t.Fatalf("call(40, 2) = %d, want 42", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	if _, err := Load(nil); err == nil {
		t.Fatalf("empty buffer accepted")
	}
}

func TestCloseIdempotent(t *testing.T) {
	c, err := Load([]byte{0xc3}) // ret
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
