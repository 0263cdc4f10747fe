package usecase

import "fmt"

// BasisPoints is the denominator of MaxWithdrawalBps.
const BasisPoints = 10_000

// FeePolicy computes the service fee and the withdrawal ceiling.
type FeePolicy struct {
	ServerFeeSats    int64
	MaxWithdrawalBps int64
}

// NewFeePolicy constructs FeePolicy.
func NewFeePolicy(serverFeeSats, maxWithdrawalBps int64) FeePolicy {
	return FeePolicy{ServerFeeSats: serverFeeSats, MaxWithdrawalBps: maxWithdrawalBps}
}

// ComputeFee returns the fixed service fee in satoshis.
func (p FeePolicy) ComputeFee() int64 {
	return p.ServerFeeSats
}

// ComputeMax returns the largest amount a single request may withdraw given balance.
// A negative balance is a caller bug.
func (p FeePolicy) ComputeMax(balance int64) int64 {
	if balance < 0 {
		panic(fmt.Sprintf("fee policy: negative balance %d", balance))
	}
	return balance/BasisPoints*p.MaxWithdrawalBps + balance%BasisPoints*p.MaxWithdrawalBps/BasisPoints
}
