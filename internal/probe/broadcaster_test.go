package probe

import "testing"

func TestBroadcasterNotAvailByDefault(t *testing.T) {
	b := NewBroadcaster()
	if err := b.Send([]byte("frame")); err != ErrSocketNotAvail {
		t.Errorf("Send with no sender: err = %v, want ErrSocketNotAvail", err)
	}
}

func TestBroadcasterDelegatesToSender(t *testing.T) {
	b := NewBroadcaster()
	var got []byte
	b.Update(func(frame []byte) error {
		got = frame
		return nil
	})

	if err := b.Send([]byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("sender received %q, want %q", got, "hello")
	}
}

func TestBroadcasterUpdateNilRevertsToNotAvail(t *testing.T) {
	b := NewBroadcaster()
	b.Update(func(frame []byte) error { return nil })
	b.Update(nil)

	if err := b.Send([]byte("x")); err != ErrSocketNotAvail {
		t.Errorf("Send after nil update: err = %v, want ErrSocketNotAvail", err)
	}
}
