package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}

	if name := parser.Get("name"); name != "test" {
		t.Errorf("Get('name') = %q, want 'test'", name)
	}

	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}

	if id := parser.Get("id"); id != "456" {
		t.Errorf("Get('id') = %q, want '456'", id)
	}

	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"POST allowed", http.MethodPost, []string{http.MethodPost}, false},
		{"DELETE allowed with multiple", http.MethodDelete, []string{http.MethodDelete, http.MethodPost}, false},
		{"GET not allowed", http.MethodGet, []string{http.MethodPost}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func TestRequirePOST(t *testing.T) {
	postReq := httptest.NewRequest(http.MethodPost, "/test", nil)
	if result := RequirePOST(postReq); result != nil {
		t.Error("RequirePOST should allow POST requests")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/test", nil)
	if result := RequirePOST(getReq); result == nil {
		t.Error("RequirePOST should reject GET requests")
	}
}

func TestParseTransferInput(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        TransferInput
		wantJSON    bool
	}{
		{
			name:        "form fields",
			contentType: "application/x-www-form-urlencoded",
			body:        "from=1&to=2&amount=+200.50+",
			want:        TransferInput{FromAccountID: "1", ToAccountID: "2", Amount: "200.50"},
		},
		{
			name:        "json with numeric amount",
			contentType: "application/json",
			body:        `{"fromAccountId":"1","toAccountId":"3","amount":75}`,
			want:        TransferInput{FromAccountID: "1", ToAccountID: "3", Amount: "75"},
			wantJSON:    true,
		},
		{
			name:        "json amount keeps every digit",
			contentType: "application/json",
			body:        `{"from":"1","to":"2","amount":12345678901234567.89}`,
			want:        TransferInput{FromAccountID: "1", ToAccountID: "2", Amount: "12345678901234567.89"},
			wantJSON:    true,
		},
		{
			name:        "missing values stay empty",
			contentType: "application/x-www-form-urlencoded",
			body:        "from=1",
			want:        TransferInput{FromAccountID: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			got, isJSON, err := ParseTransferInput(req)
			if err != nil {
				t.Fatalf("ParseTransferInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTransferInput() = %+v, want %+v", got, tt.want)
			}
			if isJSON != tt.wantJSON {
				t.Errorf("isJSON = %v, want %v", isJSON, tt.wantJSON)
			}
		})
	}
}

func TestParseTransferInput_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"from":`))
	if _, _, err := ParseTransferInput(req); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
