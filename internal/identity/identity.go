// Package identity derives a stable pseudonymous user key from any
// supported authentication credential. Pure function, no I/O.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/phigros-go/phigros-backend/internal/model"
)

// KeySource tags which part of a Credential produced a user key.
type KeySource string

const (
	KeySourceSessionToken         KeySource = "session_token"
	KeySourceExternalAPIUserID    KeySource = "external_api_user_id"
	KeySourceExternalSessionToken KeySource = "external_sessiontoken"
	KeySourcePlatformPair         KeySource = "platform_pair"
)

// userKeyHexLen is the number of hex characters (128 bits) kept from the
// full HMAC-SHA256 digest.
const userKeyHexLen = 32

// Derive computes a 32-hex-char pseudonymous user key from salt and
// credential. It returns (nil, nil) if salt is empty or no credential
// field is populated. Selection order within External is fixed:
// APIUserID, SessionToken, (Platform, PlatformID).
func Derive(salt string, cred model.Credential) (*string, *KeySource) {
	if salt == "" {
		return nil, nil
	}

	if cred.SessionToken != "" {
		return hash(salt, cred.SessionToken), sourcePtr(KeySourceSessionToken)
	}

	if ext := cred.External; ext != nil {
		if ext.APIUserID != "" {
			return hash(salt, ext.APIUserID), sourcePtr(KeySourceExternalAPIUserID)
		}
		if ext.SessionToken != "" {
			return hash(salt, ext.SessionToken), sourcePtr(KeySourceExternalSessionToken)
		}
		if ext.Platform != "" && ext.PlatformID != "" {
			material := ext.Platform + ":" + ext.PlatformID
			return hash(salt, material), sourcePtr(KeySourcePlatformPair)
		}
	}

	return nil, nil
}

func hash(salt, material string) *string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(material))
	sum := mac.Sum(nil)
	out := hex.EncodeToString(sum)[:userKeyHexLen]
	return &out
}

func sourcePtr(s KeySource) *KeySource {
	return &s
}
