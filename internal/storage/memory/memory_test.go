package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/mmynk/billsnap/internal/session"
	"github.com/mmynk/billsnap/internal/storage"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()
	defer store.Close()

	sess := session.New()
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("got session %s, want %s", got.ID, sess.ID)
	}

	next, _, err := got.AddPerson("alice")
	if err != nil {
		t.Fatalf("AddPerson: %v", err)
	}
	if err := store.UpdateSession(ctx, next); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	got, err = store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession after update: %v", err)
	}
	if len(got.People) != 1 {
		t.Fatalf("people = %d, want 1", len(got.People))
	}

	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	store := New()
	defer store.Close()

	if err := store.UpdateSession(context.Background(), session.New()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
