package staking

import (
	"encoding/json"

	"github.com/meshsec/provider-core/addr"
)

// StakePayload is the opaque payload the vault forwards verbatim from
// StakeRemote through to ReceiveVirtualStake. Wire shapes across the
// callback boundary are semantic, not byte-exact, so JSON is as good a
// choice as any fixed binary layout here.
type StakePayload struct {
	Validator addr.Valoper `json:"validator"`
	Denom     string       `json:"denom"`
}

// EncodeStakePayload builds the payload a caller passes to
// vault.StakeRemote to direct a virtual stake at validator.
func EncodeStakePayload(validator addr.Valoper, denom string) []byte {
	b, _ := json.Marshal(StakePayload{Validator: validator, Denom: denom})
	return b
}

// DecodeStakePayload recovers the validator and denom a StakeRemote call
// targeted.
func DecodeStakePayload(payload []byte) (StakePayload, error) {
	var p StakePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return StakePayload{}, err
	}
	return p, nil
}
