package surreal

import (
	"context"
	"os"
	"testing"
)

// Accessing private function for testing
func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid simple", "schedules", false},
		{"Valid with underscore", "daily_schedule", false},
		{"Valid with numbers", "field1", false},
		{"Valid with mixed case", "UserId", false},
		{"Invalid space", "daily schedule", true},
		{"Invalid semicolon", "date;id", true},
		{"Invalid dash", "daily-schedule", true},
		{"Invalid special char", "date$", true},
		{"Invalid SQL injection", "daily_schedule; DROP TABLE daily_schedule", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateIdentifier(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("validateIdentifier() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildWhereClause(t *testing.T) {
	tests := []struct {
		name    string
		filter  map[string]interface{}
		want    string
		wantErr bool
	}{
		{
			name:   "Empty filter",
			filter: map[string]interface{}{},
			want:   "true",
		},
		{
			name:   "Single filter",
			filter: map[string]interface{}{"date": "2026-10-17"},
			want:   "date = $date",
		},
		{
			name:   "Keys are sorted",
			filter: map[string]interface{}{"origin": "x", "date": "2026-10-17"},
			want:   "date = $date AND origin = $origin",
		},
		{
			name:    "Invalid key",
			filter:  map[string]interface{}{"user id": "123"},
			wantErr: true,
		},
		{
			name:    "Injection key",
			filter:  map[string]interface{}{"id; --": "123"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildWhereClause(tt.filter)
			if (err != nil) != tt.wantErr {
				t.Errorf("buildWhereClause() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("buildWhereClause() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildSelect(t *testing.T) {
	query, vars, err := buildSelect("daily_schedule", map[string]interface{}{"date": "2026-10-17"}, 0)
	if err != nil {
		t.Fatalf("buildSelect() error = %v", err)
	}
	if want := "SELECT * FROM daily_schedule WHERE date = $date LIMIT 1;"; query != want {
		t.Errorf("buildSelect() = %q, want %q", query, want)
	}
	if vars["date"] != "2026-10-17" {
		t.Errorf("buildSelect() vars = %v", vars)
	}

	if _, _, err := buildSelect("bad table", nil, 1); err == nil {
		t.Error("expected error for invalid table name")
	}
}

func TestClient_Integration(t *testing.T) {
	host := os.Getenv("SURREAL_DB_HOST")
	if host == "" {
		t.Skip("SURREAL_DB_HOST not set")
	}

	client, err := NewClient(host, os.Getenv("SURREAL_DB_USER"), os.Getenv("SURREAL_DB_PASS"), "selfiebot_test", "schedule_test")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	data := map[string]interface{}{"date": "2026-10-17", "outfit": "sailor uniform", "schedule": "school"}
	if err := client.Upsert(ctx, "daily_schedule_test", "2026-10-17", data); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rows, err := client.SelectWhere(ctx, "daily_schedule_test", map[string]interface{}{"date": "2026-10-17"}, 1)
	if err != nil {
		t.Fatalf("SelectWhere() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("SelectWhere() returned %d rows, want 1", len(rows))
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok || row["outfit"] != "sailor uniform" {
		t.Errorf("SelectWhere() row = %v", rows[0])
	}
}
