package blockingqueue_test

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	bq "github.com/chronicleq/blockingqueue"
)

// payload is an arbitrary struct gofuzz can populate, exercising the default
// gob codec with nested fields rather than a bare scalar.
type payload struct {
	ID     int64
	Name   string
	Tags   []string
	Flag   bool
	Amount float64
}

// TestFuzzOfferPollRoundTrip generates random payloads, offers them in
// order, and checks Poll returns byte-for-byte identical values in the same
// order — the default gob Serializer/Deserializer pair must round-trip
// whatever gofuzz can construct for this type.
func TestFuzzOfferPollRoundTrip(t *testing.T) {
	dir := t.TempDir()
	q, err := bq.Open[payload](dir, bq.WithName[payload]("fuzz"))
	require.NoError(t, err)
	defer q.Close()

	f := fuzz.New().NilChance(0).NumElements(0, 5)

	const n = 200
	want := make([]payload, n)
	for i := range want {
		f.Fuzz(&want[i])
		ok, err := q.Offer(want[i])
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := 0; i < n; i++ {
		got, ok, err := q.Poll()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want[i], got)
	}
}
