//go:build darwin

package synth

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/satriahrh/wicara/domain/entities"
)

// macOS say speaks at roughly 175 words per minute by default. It has no
// pitch flag, so pitch is ignored on this platform.
const sayBaseRate = 175.0

func lookupSpeechBinary() (string, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return "", fmt.Errorf("speech not available: say not found")
	}
	return path, nil
}

func speakArgs(utterance entities.Utterance) []string {
	wpm := sayBaseRate * utterance.Rate

	args := []string{"-r", fmt.Sprintf("%.0f", wpm)}
	if utterance.VoiceID != "" {
		args = append(args, "-v", utterance.VoiceID)
	}
	return append(args, utterance.Text)
}

func listVoicesArgs() []string {
	return []string{"-v", "?"}
}

// parseVoiceList parses `say -v ?` output. Each line looks like:
//
//	Alex                en_US    # Most people recognize me by my voice.
//
// Voice names may contain spaces (e.g. "Bad News"), so the language is taken
// as the last field before the sample sentence.
func parseVoiceList(output string) []entities.Voice {
	var voices []entities.Voice
	for _, line := range strings.Split(output, "\n") {
		head, _, _ := strings.Cut(line, "#")
		fields := strings.Fields(head)
		if len(fields) < 2 {
			continue
		}
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, entities.Voice{
			ID:       name,
			Name:     name,
			Language: fields[len(fields)-1],
		})
	}
	return voices
}
