package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	body := "param(\n  [string]$Domain,\n  [string[]]$ExcludeGpo\n)\n\nGet-GPO -All -Domain $Domain"
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"powershell fence", "```powershell\n" + body + "\n```", body},
		{"bare fence", "```\n" + body + "\n```\n", body},
		{"crlf fence", "```ps1\r\n" + body + "\r\n```\r\n", body},
		{"leading blank lines", "\n\n```powershell\n" + body + "\n```", body},
		{"no fence", body, body},
		{"keeps trailing newline inside", "```powershell\n" + body + "\n\n```", body + "\n"},
		{"only opening fence", "```powershell\n" + body, body},
		{"empty fenced", "```powershell\n```", ""},
		{"prose before fence", "Here is the script:\n```powershell\n" + body + "\n```", body},
		{"prose and blank line before fence", "Here is the script:\r\n\r\n```ps1\r\n" + body + "\r\n```\r\n", body},
		{"prose with unclosed fence", "Here is the script:\n```powershell\n" + body, "Here is the script:\n```powershell\n" + body},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, StripCodeFence(c.in))
		})
	}
}

func TestStripCodeFenceLeavesInnerFencesAlone(t *testing.T) {
	body := "Write-Host '```'\nWrite-Host done"
	assert.Equal(t, body, StripCodeFence("```powershell\n"+body+"\n```"))
}
