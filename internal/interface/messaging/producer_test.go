package messaging

import (
	"errors"
	"testing"

	"github.com/eduquest/user-service/internal/domain/entity"
)

func TestMarshalResultNil(t *testing.T) {
	if _, err := marshalResult(nil); !errors.Is(err, ErrNilResult) {
		t.Fatalf("expected ErrNilResult, got %v", err)
	}
}

func TestMarshalResultTypedNilIsNull(t *testing.T) {
	var u *entity.User
	b, err := marshalResult(u)
	if err != nil {
		t.Fatalf("marshalResult: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("body = %s, want null", b)
	}
}

func TestMarshalResultUnserializable(t *testing.T) {
	if _, err := marshalResult(make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}
