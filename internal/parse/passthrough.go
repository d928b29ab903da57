package parse

import "encoding/json"

// Passthrough wraps a decrypted opaque sub-document (gameProgress, user,
// settings, gameKey) as JSON without further interpretation. The parser
// never validates these beyond being the bytes the decryptor produced.
func Passthrough(raw []byte) json.RawMessage {
	return json.RawMessage(raw)
}
