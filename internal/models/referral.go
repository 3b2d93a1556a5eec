package models

import "time"

type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "pending"
	ReferralStatusValid    ReferralStatus = "valid"
	ReferralStatusCredited ReferralStatus = "credited"
	ReferralStatusInvalid  ReferralStatus = "invalid"
)

type Referral struct {
	ID          string         `json:"id"`
	ReferrerID  string         `json:"referrer_id"`
	ReferredID  string         `json:"referred_id"`
	Code        string         `json:"code"`
	Status      ReferralStatus `json:"status"`
	IP          string         `json:"ip,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ValidatedAt *time.Time     `json:"validated_at,omitempty"`
}
