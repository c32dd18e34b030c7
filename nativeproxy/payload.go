package nativeproxy

import "encoding/json"

// DelegatePayload is the opaque payload a vault forwards through
// Delegate: a denom check only, since the validator is fixed per Proxy
// instance (contract.rs's instantiate-time _validator), unlike staking's
// StakePayload which must name a validator per call.
type DelegatePayload struct {
	Denom string `json:"denom"`
}

func EncodeDelegatePayload(denom string) []byte {
	b, _ := json.Marshal(DelegatePayload{Denom: denom})
	return b
}

func DecodeDelegatePayload(payload []byte) (DelegatePayload, error) {
	var p DelegatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return DelegatePayload{}, err
	}
	return p, nil
}
