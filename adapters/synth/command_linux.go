//go:build linux

package synth

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/satriahrh/wicara/domain/entities"
)

// espeak defaults: 175 words per minute, pitch 50 on a 0-99 scale.
const (
	espeakBaseRate  = 175.0
	espeakBasePitch = 50.0
	espeakMaxPitch  = 99
)

func lookupSpeechBinary() (string, error) {
	for _, bin := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(bin); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("speech not available: install espeak-ng or espeak")
}

func speakArgs(utterance entities.Utterance) []string {
	wpm := int(espeakBaseRate * utterance.Rate)
	pitch := int(espeakBasePitch * utterance.Pitch)
	if pitch > espeakMaxPitch {
		pitch = espeakMaxPitch
	}

	args := []string{"-s", strconv.Itoa(wpm), "-p", strconv.Itoa(pitch)}
	if utterance.VoiceID != "" {
		args = append(args, "-v", utterance.VoiceID)
	}
	return append(args, utterance.Text)
}

func listVoicesArgs() []string {
	return []string{"--voices"}
}

// parseVoiceList parses `espeak --voices` output. Each data line looks like:
//
//	Pty Language Age/Gender VoiceName          File          Other Languages
//	 5  af             M  afrikaans            other/af
func parseVoiceList(output string) []entities.Voice {
	var voices []entities.Voice
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		voices = append(voices, entities.Voice{
			ID:       fields[4],
			Name:     fields[3],
			Language: fields[1],
		})
	}
	return voices
}
