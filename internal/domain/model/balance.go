package model

// BalanceSummary reports the mainchain wallet balance and the limits derived from it.
type BalanceSummary struct {
	Balance       int64
	MaxWithdrawal int64
	ServerFee     int64
}
