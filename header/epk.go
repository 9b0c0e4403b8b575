package header

import (
	stdecdh "crypto/ecdh"
	"encoding/base64"
	"fmt"
)

// encodeECDHPublicKey renders pub as the minimal EC or OKP JSON Web
// Key object RFC 7518 Section 6.2 / RFC 8037 Section 2 requires for
// an "epk" header value: just kty, crv, and the coordinate(s).
func encodeECDHPublicKey(pub *stdecdh.PublicKey) (map[string]any, error) {
	raw := pub.Bytes()
	switch pub.Curve() {
	case stdecdh.X25519():
		return map[string]any{
			"kty": string(jwaOKP),
			"crv": string(jwaX25519),
			"x":   base64.RawURLEncoding.EncodeToString(raw),
		}, nil
	case stdecdh.P256():
		return encodeECPoint(jwaP256, raw, 32)
	case stdecdh.P384():
		return encodeECPoint(jwaP384, raw, 48)
	case stdecdh.P521():
		return encodeECPoint(jwaP521, raw, 66)
	default:
		return nil, fmt.Errorf("header: unsupported epk curve %v", pub.Curve())
	}
}

// encodeECPoint splits the uncompressed SEC1 point (0x04 || X || Y)
// crypto/ecdh.PublicKey.Bytes returns for NIST curves into its X/Y
// coordinates, each coordSize bytes.
func encodeECPoint(crv string, raw []byte, coordSize int) (map[string]any, error) {
	if len(raw) != 1+2*coordSize || raw[0] != 0x04 {
		return nil, fmt.Errorf("header: unexpected EC point encoding, length %d", len(raw))
	}
	x := raw[1 : 1+coordSize]
	y := raw[1+coordSize:]
	return map[string]any{
		"kty": string(jwaEC),
		"crv": crv,
		"x":   base64.RawURLEncoding.EncodeToString(x),
		"y":   base64.RawURLEncoding.EncodeToString(y),
	}, nil
}

// decodeECDHPublicKey parses the minimal EC/OKP JWK object epk into a
// crypto/ecdh public key. Only the curves this library supports for
// ECDH-ES are accepted; X448 ("X448") and anything else is rejected.
func decodeECDHPublicKey(epk map[string]any) (*stdecdh.PublicKey, error) {
	kty, _ := epk["kty"].(string)
	crv, _ := epk["crv"].(string)
	switch kty {
	case string(jwaOKP):
		if crv != string(jwaX25519) {
			return nil, fmt.Errorf("header: unsupported OKP curve %q", crv)
		}
		x, err := decodeCoord(epk, "x")
		if err != nil {
			return nil, err
		}
		return stdecdh.X25519().NewPublicKey(x)
	case string(jwaEC):
		curve, coordSize, err := ecCurve(crv)
		if err != nil {
			return nil, err
		}
		x, err := decodeCoord(epk, "x")
		if err != nil {
			return nil, err
		}
		y, err := decodeCoord(epk, "y")
		if err != nil {
			return nil, err
		}
		if len(x) != coordSize || len(y) != coordSize {
			return nil, fmt.Errorf("header: epk coordinate length mismatch for %s", crv)
		}
		point := make([]byte, 1+2*coordSize)
		point[0] = 0x04
		copy(point[1:], x)
		copy(point[1+coordSize:], y)
		return curve.NewPublicKey(point)
	default:
		return nil, fmt.Errorf("header: unsupported epk key type %q", kty)
	}
}

func decodeCoord(epk map[string]any, field string) ([]byte, error) {
	s, ok := epk[field].(string)
	if !ok {
		return nil, fmt.Errorf("header: epk missing %q", field)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func ecCurve(crv string) (stdecdh.Curve, int, error) {
	switch crv {
	case jwaP256:
		return stdecdh.P256(), 32, nil
	case jwaP384:
		return stdecdh.P384(), 48, nil
	case jwaP521:
		return stdecdh.P521(), 66, nil
	default:
		return nil, 0, fmt.Errorf("header: unsupported EC curve %q", crv)
	}
}

// Local copies of the jwa package's key-type/curve identifiers, kept
// as plain strings so this file does not need to import jwa just for
// a handful of constants used only in JWK rendering.
const (
	jwaEC    = "EC"
	jwaOKP   = "OKP"
	jwaP256  = "P-256"
	jwaP384  = "P-384"
	jwaP521  = "P-521"
	jwaX25519 = "X25519"
)
