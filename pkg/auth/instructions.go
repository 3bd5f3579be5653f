package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowServiceKeyGuide prints how to obtain a data.go.kr service key and which
// of its two forms to use
func ShowServiceKeyGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "HIRA OPEN API SERVICE KEY")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in at https://www.data.go.kr")
	fmt.Fprintln(w, "2. Request access to these datasets:")
	fmt.Fprintln(w, "     - 건강보험심사평가원_병원정보서비스 (hospital list)")
	fmt.Fprintln(w, "     - 건강보험심사평가원_의료기관별상세정보서비스 (hospital detail)")
	fmt.Fprintln(w, "3. Open My Page > API applications and copy a key")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The portal shows the same key in two forms:")
	fmt.Fprintln(w, "  Encoding  already percent-encoded (contains %2B, %3D)  --auth-mode url")
	fmt.Fprintln(w, "  Decoding  raw form (contains + and =)                  --auth-mode query")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "New keys can take an hour to activate. Until then the API answers")
	fmt.Fprintln(w, "with SERVICE_KEY_IS_NOT_REGISTERED_ERROR.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

// GuessAuthMode infers the key form: percent escapes mean the encoded key
func GuessAuthMode(key string) string {
	if strings.Contains(key, "%") {
		return "url"
	}
	return "query"
}
