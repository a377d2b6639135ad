package state

import "regexp"

const maxSecretFindings = 20

// SecretFinding is one suspected credential in proposed write content.
// The snippet is masked so findings are safe to log and show the user.
type SecretFinding struct {
	Type          string `json:"type"`
	MaskedSnippet string `json:"masked_snippet"`
}

var secretPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Groq API key", regexp.MustCompile(`gsk_[A-Za-z0-9]{20,}`)},
	{"API key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"GitHub token", regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`)},
	{"AWS access key ID", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"Google API key", regexp.MustCompile(`AIza[0-9A-Za-z\-_]{20,}`)},
	{"Private key", regexp.MustCompile(`-----BEGIN (?:RSA|OPENSSH|EC|DSA) PRIVATE KEY-----`)},
}

// DetectSecrets scans content for credential-shaped strings. Findings are
// capped at 20; any finding blocks a write unless the policy opts in with
// allowPotentialSecrets.
func DetectSecrets(content string) []SecretFinding {
	var findings []SecretFinding
	for _, p := range secretPatterns {
		for _, match := range p.re.FindAllString(content, -1) {
			findings = append(findings, SecretFinding{
				Type:          p.name,
				MaskedSnippet: maskSnippet(match),
			})
			if len(findings) >= maxSecretFindings {
				return findings
			}
		}
	}
	return findings
}

// maskSnippet keeps the first 6 and last 4 characters of anything longer
// than 12 characters.
func maskSnippet(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
