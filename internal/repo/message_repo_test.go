package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-message-backend/internal/domain"
)

func TestCreateMessage_AssignsIDAndTimestamps(t *testing.T) {
	db := newTestDB(t, &domain.Message{})

	msg, err := CreateMessage(db, "hello")
	if err != nil {
		t.Fatalf("CreateMessage error: %v", err)
	}
	if msg.ID == 0 || msg.Content != "hello" || msg.CreatedAt.IsZero() || msg.UpdatedAt.IsZero() {
		t.Fatalf("unexpected message: %+v", msg)
	}

	got, err := GetMessage(db, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.ID != msg.ID || got.Content != "hello" {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", got, msg)
	}
}

func TestCreateMessage_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateMessage(db, "x"); err == nil {
		t.Fatalf("expected error when table is missing")
	}
}

func TestListMessages_InsertionOrder(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	for _, c := range []string{"b", "a", "c"} {
		if _, err := CreateMessage(db, c); err != nil {
			t.Fatalf("seed %q: %v", c, err)
		}
	}

	all, err := ListMessages(db)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(all) != 3 || all[0].Content != "b" || all[1].Content != "a" || all[2].Content != "c" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestCountMessages(t *testing.T) {
	t.Run("no table", func(t *testing.T) {
		db := newTestDB(t)
		if _, err := CountMessages(db); err == nil {
			t.Fatalf("expected error due to missing messages table")
		}
	})
	t.Run("success", func(t *testing.T) {
		db := newTestDB(t, &domain.Message{})
		for _, c := range []string{"1", "2"} {
			if _, err := CreateMessage(db, c); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
		total, err := CountMessages(db)
		if err != nil || total != 2 {
			t.Fatalf("expected 2, got %d (%v)", total, err)
		}
	})
}

func TestListMessagesPage_Pagination(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		if _, err := CreateMessage(db, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	out, err := ListMessagesPage(db, 1, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage error: %v", err)
	}
	if len(out) != 2 || out[0].Content != "b" || out[1].Content != "c" {
		t.Fatalf("unexpected page slice: %+v", out)
	}

	out, err = ListMessagesPage(db, 4, 10)
	if err != nil || len(out) != 1 || out[0].Content != "e" {
		t.Fatalf("unexpected tail page: %+v (%v)", out, err)
	}
}

func TestSearchMessages_LiteralCaseSensitive(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	for _, c := range []string{"Hello world", "hello there", "100% sure", "snake_case", "plain"} {
		if _, err := CreateMessage(db, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cases := []struct {
		query string
		want  []string
	}{
		{"hello", []string{"hello there"}},
		{"Hello", []string{"Hello world"}},
		{"%", []string{"100% sure"}},
		{"_", []string{"snake_case"}},
		{"o", []string{"Hello world", "hello there"}},
		{"absent", nil},
	}
	for _, tc := range cases {
		got, err := SearchMessages(db, tc.query)
		if err != nil {
			t.Fatalf("SearchMessages(%q): %v", tc.query, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("SearchMessages(%q) = %+v; want %v", tc.query, got, tc.want)
		}
		for i := range got {
			if got[i].Content != tc.want[i] {
				t.Fatalf("SearchMessages(%q)[%d] = %q; want %q", tc.query, i, got[i].Content, tc.want[i])
			}
		}
	}
}

func TestGetMessage_FoundAndNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Message{})

	if _, err := GetMessage(db, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	msg, err := CreateMessage(db, "hi")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := GetMessage(db, msg.ID)
	if err != nil || got.Content != "hi" {
		t.Fatalf("GetMessage = %+v, %v", got, err)
	}
}

// the repository funcs accept a *gorm.DB that may have context/tx set
func TestRepoWithContextHandles(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	tdb := db.WithContext(context.Background())

	if _, err := CreateMessage(tdb, "hello"); err != nil {
		t.Fatalf("CreateMessage with context: %v", err)
	}
	if _, err := ListMessages(tdb); err != nil {
		t.Fatalf("ListMessages with context: %v", err)
	}
	if _, err := CountMessages(tdb); err != nil {
		t.Fatalf("CountMessages with context: %v", err)
	}
	if _, err := ListMessagesPage(tdb, 0, 1); err != nil {
		t.Fatalf("ListMessagesPage with context: %v", err)
	}
	if _, err := SearchMessages(tdb, "he"); err != nil {
		t.Fatalf("SearchMessages with context: %v", err)
	}
}
