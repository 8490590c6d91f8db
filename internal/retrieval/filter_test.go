package retrieval

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestChunkFilter_MongoBankScope(t *testing.T) {
	// Unset scope adds no idrssd clause at all.
	q := (ChunkFilter{Bank: AnyBank()}).Mongo()
	if _, ok := q["idrssd"]; ok {
		t.Fatalf("unset bank scope must not constrain idrssd: %v", q)
	}

	// Global-only matches null and missing idrssd alike.
	q = (ChunkFilter{Bank: GlobalOnly()}).Mongo()
	if v, ok := q["idrssd"]; !ok || v != nil {
		t.Fatalf("global scope should query idrssd: nil, got %v", q)
	}

	q = (ChunkFilter{Bank: ForBank("12345")}).Mongo()
	if q["idrssd"] != "12345" {
		t.Fatalf("bank scope should query exact idrssd, got %v", q)
	}
}

func TestChunkFilter_MongoBankTypesIncludeSentinel(t *testing.T) {
	q := (ChunkFilter{BankTypes: []string{"consumer", "community"}}).Mongo()

	want := bson.M{"$in": []string{"consumer", "community", "all"}}
	if !reflect.DeepEqual(q["bank_types"], want) {
		t.Fatalf("bank_types clause = %v, want %v", q["bank_types"], want)
	}
}

func TestChunkFilter_MongoTopics(t *testing.T) {
	q := (ChunkFilter{Topics: []string{"liquidity"}}).Mongo()

	want := bson.M{"$in": []string{"liquidity"}}
	if !reflect.DeepEqual(q["topics"], want) {
		t.Fatalf("topics clause = %v, want %v", q["topics"], want)
	}
}

func TestChunkFilter_EmptyImposesNoConstraint(t *testing.T) {
	q := (ChunkFilter{}).Mongo()
	if len(q) != 0 {
		t.Fatalf("empty filter should render an empty query, got %v", q)
	}
}
