package telegram

import (
	"testing"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"123456789", 123456789, false},
		{"-1001234567890", -1001234567890, false}, // supergroup chat IDs are negative
		{"0", 0, false},
		{"", 0, true},
		{"abc", 0, true},
		{"12.5", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTarget(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTarget(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTarget(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTarget(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestActionMenuLayout(t *testing.T) {
	menu := actionMenu()
	if menu.InlineKeyboard == nil {
		t.Fatal("expected inline keyboard")
	}
	if len(menu.InlineKeyboard) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(menu.InlineKeyboard))
	}

	wantLabels := []string{"View all habits", "Add habit", "Delete habit", "Update streak"}
	wantUnique := []string{"view", "add", "delete", "update"}
	for i, row := range menu.InlineKeyboard {
		if len(row) != 1 {
			t.Errorf("row %d has %d buttons, want 1", i, len(row))
			continue
		}
		if row[0].Text != wantLabels[i] {
			t.Errorf("row %d label = %q, want %q", i, row[0].Text, wantLabels[i])
		}
		if row[0].Unique != wantUnique[i] {
			t.Errorf("row %d callback id = %q, want %q", i, row[0].Unique, wantUnique[i])
		}
	}
}

func TestNewBotRequiresToken(t *testing.T) {
	if _, err := NewBot(nil); err == nil {
		t.Fatal("expected error when no token is configured")
	}
}
