package structhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const pageA = `<html><body>
<table class="runlist">
<tr><td>19/02/2026</td><td>1234</td><td>The Sun Inn, TW9 1TH</td></tr>
<tr><td>26/02/2026</td><td>1235</td><td>The Old Oak, SW13 0NR</td></tr>
</table>
</body></html>`

// same shape, different content
const pageB = `<html><body>
<table class="runlist">
<tr><td>05/03/2026</td><td>1236</td><td>The Lamb, EC1R 0DX</td></tr>
<tr><td>12/03/2026</td><td>1237</td><td>The Albion, N1 8DU</td></tr>
</table>
</body></html>`

// redesigned markup
const pageC = `<html><body>
<div class="events"><div class="event-card">19/02/2026</div></div>
</body></html>`

func TestFingerprintStableAcrossContent(t *testing.T) {
	require.Equal(t, Fingerprint([]byte(pageA)), Fingerprint([]byte(pageB)))
}

func TestFingerprintChangesWithStructure(t *testing.T) {
	require.NotEqual(t, Fingerprint([]byte(pageA)), Fingerprint([]byte(pageC)))
}

func TestFingerprintIgnoresClassOrder(t *testing.T) {
	a := Fingerprint([]byte(`<div class="a b c"></div>`))
	b := Fingerprint([]byte(`<div class="c b a"></div>`))
	require.Equal(t, a, b)
}

func TestFingerprintDeterministic(t *testing.T) {
	require.Equal(t, Fingerprint([]byte(pageA)), Fingerprint([]byte(pageA)))
	require.NotEmpty(t, Fingerprint(nil))
}
