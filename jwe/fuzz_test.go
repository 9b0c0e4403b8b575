package jwe

import (
	"reflect"
	"testing"
)

func FuzzParse(f *testing.F) {
	// RFC 7516 Appendix A.1. Example JWE using RSAES-OAEP and AES GCM
	f.Add(`eyJhbGciOiJSU0EtT0FFUCIsImVuYyI6IkEyNTZHQ00ifQ.` +
		`OKOawDo13gRp2ojaHV7LFpZcgV7T6DVZKTyKOMTYUmKoTCVJRgckCL9kiMT03JGe` +
		`ipsEdY3mx_etLbbWSrFr05kLzcSr4qKAq7YN7e9jwQRb23nfa6c9d-StnImGyFDb` +
		`Sv04uVuxIp5Zms1gNxKKK2Da14B8S4rzVRltdYwam_lDp5XnZAYpQdb76FdIKLaV` +
		`mqgfwX7XWRxv2322i-vDxRfqNzo_tETKzpVLzfiwQyeyPGLBIO56YJ7eObdv0je8` +
		`1860ppamavo35UgoRdbYaBcoh9QcfylQr66oc6vFWXRcZ_ZT2LawVCWTIy3brGPi` +
		`6UklfCpIMfIjf7iGdXKHzg.` +
		`48V1_ALb6US04U3b.` +
		`5eym8TW_c8SuK0ltJ3rpYIzOeDQz7TALvtu6UG9oMo4vpzs9tX_EFShS8iB7j6ji` +
		`SdiwkIr3ajwQzaBtQD_A.` +
		`XFBoMYUZodetZdvTiFvSkQ`)

	// RFC 7516 Appendix A.2. Example JWE using RSAES-PKCS1-v1_5 and AES_128_CBC_HMAC_SHA_256
	f.Add(`eyJhbGciOiJSU0ExXzUiLCJlbmMiOiJBMTI4Q0JDLUhTMjU2In0.` +
		`UGhIOguC7IuEvf_NPVaXsGMoLOmwvc1GyqlIKOK1nN94nHPoltGRhWhw7Zx0-kFm` +
		`1NJn8LE9XShH59_i8J0PH5ZZyNfGy2xGdULU7sHNF6Gp2vPLgNZ__deLKxGHZ7Pc` +
		`HALUzoOegEI-8E66jX2E4zyJKx-YxzZIItRzC5hlRirb6Y5Cl_p-ko3YvkkysZIF` +
		`NPccxRU7qve1WYPxqbb2Yw8kZqa2rMWI5ng8OtvzlV7elprCbuPhcCdZ6XDP0_F8` +
		`rkXds2vE4X-ncOIM8hAYHHi29NX0mcKiRaD0-D-ljQTP-cFPgwCp6X-nZZd9OHBv` +
		`-B3oWh2TbqmScqXMR4gp_A.` +
		`AxY8DCtDaGlsbGljb3RoZQ.` +
		`KDlTtXchhZTGufMYmOYGS4HffxPSUrfmqCHXaI9wOGY.` +
		`9hH0vgRfYgPnAHOd8stkvw`)

	// RFC 7516 Appendix A.3. Example JWE Using AES Key Wrap and AES_128_CBC_HMAC_SHA_256
	f.Add(`eyJhbGciOiJBMTI4S1ciLCJlbmMiOiJBMTI4Q0JDLUhTMjU2In0.` +
		`6KB707dM9YTIgHtLvtgWQ8mKwboJW3of9locizkDTHzBC2IlrT1oOQ.` +
		`AxY8DCtDaGlsbGljb3RoZQ.` +
		`KDlTtXchhZTGufMYmOYGS4HffxPSUrfmqCHXaI9wOGY.` +
		`U0m_YmjN04DJvceFICbCVQ`)

	f.Add("")
	f.Add("....")
	f.Add("a.b.c.d.e.f")

	f.Fuzz(func(t *testing.T, s string) {
		msg0, err := Parse([]byte(s))
		if err != nil {
			return
		}
		data := msg0.Compact()
		msg, err := Parse(data)
		if err != nil {
			t.Errorf("reparsing our own Compact() output failed: %v", err)
			return
		}
		if !reflect.DeepEqual(msg, msg0) {
			t.Errorf("Parse(msg.Compact()) did not round trip to an identical Message")
		}
	})
}

func FuzzDecryptCompact(f *testing.F) {
	f.Add(`eyJhbGciOiJBMTI4S1ciLCJlbmMiOiJBMTI4Q0JDLUhTMjU2In0.` +
		`6KB707dM9YTIgHtLvtgWQ8mKwboJW3of9locizkDTHzBC2IlrT1oOQ.` +
		`AxY8DCtDaGlsbGljb3RoZQ.` +
		`KDlTtXchhZTGufMYmOYGS4HffxPSUrfmqCHXaI9wOGY.` +
		`U0m_YmjN04DJvceFICbCVQ`)

	key := testOctKey()

	f.Fuzz(func(t *testing.T, s string) {
		// Decrypt must never panic, regardless of what garbage reaches it.
		_, _ = DecryptCompact([]byte(s), key)
	})
}
