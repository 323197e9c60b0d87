package messaging

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeNestedData(t *testing.T) {
	var env CommandEnvelope
	if err := json.Unmarshal([]byte(`{"operation":"login","data":{"email":"a@b.c"}}`), &env); err != nil {
		t.Fatal(err)
	}
	if env.Operation != "login" {
		t.Errorf("operation = %q", env.Operation)
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Email != "a@b.c" {
		t.Errorf("email = %q", payload.Email)
	}
}

func TestEnvelopeFlattenedData(t *testing.T) {
	var env CommandEnvelope
	if err := json.Unmarshal([]byte(`{"operation":"login","email":"a@b.c","password":"x"}`), &env); err != nil {
		t.Fatal(err)
	}
	if env.Operation != "login" {
		t.Errorf("operation = %q", env.Operation)
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Email != "a@b.c" || payload.Password != "x" {
		t.Errorf("payload = %+v", payload)
	}
}
