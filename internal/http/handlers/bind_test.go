package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type bindProbe struct {
	Email  string  `json:"email" binding:"required,email"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func newBindRouter() *gin.Engine {
	r := gin.New()

	r.POST("/probe", func(ctx *gin.Context) {
		var req bindProbe
		if !BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusNoContent)
	})

	return r
}

type bindDetails struct {
	JSON   string       `json:"json"`
	Field  string       `json:"field"`
	Fields []FieldError `json:"fields"`
}

func probe(t *testing.T, body string) (*httptest.ResponseRecorder, bindDetails) {
	t.Helper()

	r := newBindRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/probe", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var env struct {
		Error struct {
			Code    string          `json:"code"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}

	var details bindDetails

	if w.Code != http.StatusNoContent {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
		}
		if len(env.Error.Details) > 0 {
			if err := json.Unmarshal(env.Error.Details, &details); err != nil {
				t.Fatalf("decode details: %v", err)
			}
		}
	}

	return w, details
}

func TestBindJSONValidBody(t *testing.T) {
	w, _ := probe(t, `{"email":"jane@x.com","amount":12.5}`)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestBindJSONValidationErrors(t *testing.T) {
	w, details := probe(t, `{"email":"not-an-email","amount":0}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", w.Code)
	}

	byField := map[string]FieldError{}
	for _, f := range details.Fields {
		byField[f.Field] = f
	}

	// field names come from the json tags, not the Go struct fields
	email, ok := byField["email"]
	if !ok {
		t.Fatalf("expected an error for \"email\", got %+v", details.Fields)
	}
	if email.Rule != "email" {
		t.Fatalf("email rule: got %q", email.Rule)
	}

	amount, ok := byField["amount"]
	if !ok {
		t.Fatalf("expected an error for \"amount\", got %+v", details.Fields)
	}
	// a zero amount fails required before gt kicks in
	if amount.Rule != "required" && amount.Rule != "gt" {
		t.Fatalf("amount rule: got %q", amount.Rule)
	}
	if amount.Message == "" {
		t.Fatal("expected a human readable message")
	}
}

func TestBindJSONSyntaxError(t *testing.T) {
	w, details := probe(t, `{"email": oops}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", w.Code)
	}

	if details.JSON != "invalid_json_syntax" {
		t.Fatalf("details.json: got %q", details.JSON)
	}
}

func TestBindJSONTypeMismatch(t *testing.T) {
	w, details := probe(t, `{"email":"jane@x.com","amount":"twelve"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", w.Code)
	}

	if details.JSON != "invalid_json_type" {
		t.Fatalf("details.json: got %q", details.JSON)
	}

	if details.Field != "amount" {
		t.Fatalf("details.field: got %q", details.Field)
	}
}
