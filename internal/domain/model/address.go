package model

// AddressValidation is the ledger's verdict on a mainchain address.
type AddressValidation struct {
	Valid  bool
	Reason string
}
