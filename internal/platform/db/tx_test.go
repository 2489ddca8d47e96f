package db

import (
	"context"
	"testing"
)

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey, "not a tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong value type")
	}
}

func TestWithContext_RoundTrip(t *testing.T) {
	// A nil pgx.Tx interface value still exercises the key plumbing.
	ctx := WithContext(context.Background(), nil)
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx back")
	}
}
