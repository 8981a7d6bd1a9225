package wire

import (
	"encoding/json"
	"math/big"
	"testing"

	"acctview/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		if s != "" {
			out[i] = json.RawMessage(s)
		}
	}
	return out
}

func TestDecodeVoting(t *testing.T) {
	got, err := DecodeVoting(raws(
		`null`,
		`{"direct":{"votes":[],"delegations":{"votes":0,"capital":0}}}`,
		`{"delegating":{"balance":100,"target":"Z","conviction":"Locked1x"}}`,
		`{"Delegating":{"Balance":"0x0a","Target":"Y","Conviction":3}}`,
		``,
	))
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Nil(t, got[0])
	assert.Nil(t, got[1])
	assert.Nil(t, got[4])

	require.NotNil(t, got[2])
	assert.Equal(t, "Z", got[2].AccountDelegated)
	assert.Equal(t, 0, got[2].Amount.Cmp(big.NewInt(100)))
	assert.Equal(t, models.ConvictionLocked1x, got[2].Conviction)

	require.NotNil(t, got[3])
	assert.Equal(t, "Y", got[3].AccountDelegated)
	assert.Equal(t, int64(10), got[3].Amount.Int64())
	assert.Equal(t, models.ConvictionLocked3x, got[3].Conviction)
}

func TestDecodeVotingLargeAmount(t *testing.T) {
	got, err := DecodeVoting(raws(`{"delegating":{"balance":"123456789012345678901234567890","target":"Z"}}`))
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.Equal(t, 0, got[0].Amount.Cmp(want))
	assert.Equal(t, models.ConvictionNone, got[0].Conviction)
}

func TestDecodeVotingMalformed(t *testing.T) {
	_, err := DecodeVoting(raws(`null`, `[1,2]`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeVoting(raws(`{"delegating":{"balance":1,"target":7}}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeVoting(raws(`{"delegating":{"balance":1,"target":"Z","conviction":"Locked9x"}}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	// negative balances are rejected whether written as number or string
	_, err = DecodeVoting(raws(`{"delegating":{"balance":-5,"target":"Z"}}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
	_, err = DecodeVoting(raws(`{"delegating":{"balance":"-5","target":"Z"}}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeProxies(ProxyShapeLegacy, raws(`[[["D1","Any"]],"-1"]`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestShapeForArity(t *testing.T) {
	assert.Equal(t, ProxyShapeStructured, ShapeForArity(4))
	assert.Equal(t, ProxyShapeLegacy, ShapeForArity(3))
	assert.Equal(t, ProxyShapeLegacy, ShapeForArity(0))
}

func TestDecodeProxiesLegacy(t *testing.T) {
	got, err := DecodeProxies(ProxyShapeLegacy, raws(
		`[[["D1","Staking"],["D2"]],"1000"]`,
		`[[],0]`,
		`null`,
	))
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NotNil(t, got[0])
	assert.Equal(t, []models.ProxyDefinition{
		{Delegate: "D1", ProxyType: models.ProxyStaking},
		{Delegate: "D2", ProxyType: models.ProxyAny},
	}, got[0].Definitions)
	assert.Equal(t, int64(1000), got[0].Deposit.Int64())

	require.NotNil(t, got[1])
	assert.Empty(t, got[1].Definitions)
	assert.Nil(t, got[2])
}

func TestDecodeProxiesLegacyNullType(t *testing.T) {
	got, err := DecodeProxies(ProxyShapeLegacy, raws(`[[["D1",null],["D2",1]],"0x10"]`))
	require.NoError(t, err)
	assert.Equal(t, models.ProxyAny, got[0].Definitions[0].ProxyType)
	assert.Equal(t, models.ProxyNonTransfer, got[0].Definitions[1].ProxyType)
	assert.Equal(t, int64(16), got[0].Deposit.Int64())
}

func TestDecodeProxiesStructured(t *testing.T) {
	got, err := DecodeProxies(ProxyShapeStructured, raws(
		`[[{"delegate":"D1","proxyType":"Governance","delay":5},{"delegate":"D2"}],20]`,
	))
	require.NoError(t, err)
	assert.Equal(t, []models.ProxyDefinition{
		{Delegate: "D1", ProxyType: models.ProxyGovernance, Delay: 5},
		{Delegate: "D2", ProxyType: models.ProxyAny},
	}, got[0].Definitions)
}

func TestDecodeProxiesShapeMismatchFailsBatch(t *testing.T) {
	// a structured element inside a legacy batch
	_, err := DecodeProxies(ProxyShapeLegacy, raws(
		`[[["D1","Any"]],0]`,
		`[[{"delegate":"D2","proxyType":"Any"}],0]`,
	))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeProxies(ProxyShapeStructured, raws(`[[["D1","Any"]],0]`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeProxies(ProxyShapeLegacy, raws(`{"proxies":[],"deposit":0}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestQuantity(t *testing.T) {
	v, err := Quantity([]byte(`"0xde0b6b3a7640000"`))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	v, err = Quantity([]byte(`42`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	_, err = Quantity(nil)
	assert.ErrorIs(t, err, ErrUnexpectedShape)
	_, err = Quantity([]byte(`{"free":1}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
	_, err = Quantity([]byte(`-5`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
	_, err = Quantity([]byte(`"-7"`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
	_, err = Quantity([]byte(`"-0x10"`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}
