package internaldefs

import (
	goVault "github.com/MrEthical07/goVault"
)

// CounterDef binds an engine counter to its stable exported name.
type CounterDef struct {
	ID   goVault.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its stable exported name.
type HistogramDef struct {
	ID   goVault.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Exporters iterate this slice so
// the Prometheus and OTel surfaces always agree on names.
var CounterDefs = []CounterDef{
	{ID: goVault.MetricAuthSuccess, Name: "govault_auth_success_total", Help: "Authentications that completed with a token."},
	{ID: goVault.MetricAuthFailure, Name: "govault_auth_failure_total", Help: "Rejected authentication attempts."},
	{ID: goVault.MetricLoginRateLimited, Name: "govault_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goVault.MetricMFARequired, Name: "govault_mfa_required_total", Help: "Logins that entered the MFA branch."},
	{ID: goVault.MetricMFASuccess, Name: "govault_mfa_success_total", Help: "Completed factor verifications."},
	{ID: goVault.MetricMFAFailure, Name: "govault_mfa_failure_total", Help: "Rejected factor verifications."},
	{ID: goVault.MetricMFASetupRequired, Name: "govault_mfa_setup_required_total", Help: "Logins with no usable MFA factor enrolled."},
	{ID: goVault.MetricMFATrigger, Name: "govault_mfa_trigger_total", Help: "Send-code trigger dispatches."},
	{ID: goVault.MetricTokenIssued, Name: "govault_token_issued_total", Help: "Minted tokens."},
	{ID: goVault.MetricTokenRevoked, Name: "govault_token_revoked_total", Help: "Revoked tokens."},
	{ID: goVault.MetricValidateSuccess, Name: "govault_validate_success_total", Help: "Token validations that produced a security context."},
	{ID: goVault.MetricValidateFailure, Name: "govault_validate_failure_total", Help: "Rejected token validations."},
	{ID: goVault.MetricKeyResolveFastPath, Name: "govault_key_resolve_fast_path_total", Help: "Key resolutions satisfied by the repository read."},
	{ID: goVault.MetricKeyCreated, Name: "govault_key_created_total", Help: "Envelope keys created in the key store."},
	{ID: goVault.MetricKeyResolveRaceLost, Name: "govault_key_resolve_race_lost_total", Help: "Key resolutions that found a peer's record after locking."},
	{ID: goVault.MetricKeyLockTimeout, Name: "govault_key_lock_timeout_total", Help: "Provisioning lock acquisition timeouts."},
	{ID: goVault.MetricKeyStoreFailure, Name: "govault_key_store_failure_total", Help: "Failed key-store calls."},
	{ID: goVault.MetricRateLimitHit, Name: "govault_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goVault.MetricValidateLatency, Name: "govault_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// engine's fixed bucket layout.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds bound labels usable in instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form the
// Prometheus exposition format requires.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
