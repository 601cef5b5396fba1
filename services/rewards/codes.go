package rewards

import "errors"

// Code is a machine-readable failure reason returned to callers.
type Code string

const (
	CodeInvalidParams           Code = "invalid_params"
	CodeNotActivated            Code = "not_activated"
	CodeFaucetFailed            Code = "faucet_failed"
	CodeNoTrustLine             Code = "no_trustline"
	CodeTrustSetFailed          Code = "trustset_failed"
	CodeIssuerNotConfigured     Code = "issuer_not_configured"
	CodeMissingIssuerCredential Code = "missing_issuer_credential"
	CodeRewardError             Code = "reward_error"
	CodeUnsupported             Code = "unsupported"
)

// ErrUnsupported is returned for operations the active mode cannot serve.
var ErrUnsupported = errors.New("unsupported in network mode")

func outcome(ok bool, code Code) string {
	if ok {
		return "ok"
	}
	return string(code)
}
