package messaging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/platform-service/internal/domain"
)

func TestEncode_FixedFieldOrder(t *testing.T) {
	event := domain.NewPlatformEvent(domain.PlatformView{ID: 1, Name: "PS5", Publisher: "Sony", Cost: 499.99})

	first, err := Encode(event)
	require.NoError(t, err)

	second, err := Encode(event)
	require.NoError(t, err)

	assert.Equal(t,
		`{"id":1,"name":"PS5","publisher":"Sony","cost":499.99,"event":"Platform_Published"}`,
		string(first))
	assert.Equal(t, first, second)
}

func TestEncode_RejectsNonFiniteCost(t *testing.T) {
	_, err := Encode(domain.PlatformEvent{ID: 1, Cost: math.Inf(1), Event: domain.EventPlatformPublished})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Platform_Published")
}

func TestDecode(t *testing.T) {
	event, err := Decode([]byte(`{"id":3,"name":"Kubernetes","publisher":"CNCF","cost":0,"event":"Platform_Published"}`))

	require.NoError(t, err)
	assert.Equal(t, 3, event.ID)
	assert.Equal(t, domain.EventPlatformPublished, event.Event)

	_, err = Decode([]byte(`{`))
	assert.Error(t, err)
}
