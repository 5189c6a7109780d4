package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/astralab/astra/internal/astra/chat"
	"github.com/astralab/astra/internal/astra/voice"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session",
		Long:  "Starts an interactive chat session. Responses stream token by token. Type /clear to wipe the conversation history, /quit to exit.",
		Run:   runChat,
	}
	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.Close()

	// Sentences are queued for speech as their boundaries arrive, so
	// playback of long responses starts mid-stream.
	var speaker *voice.Speaker
	if a.cfg.Voice.Command != "" {
		speaker = voice.NewSpeaker(&voice.CommandSynthesizer{
			Command: a.cfg.Voice.Command,
			Args:    a.cfg.Voice.Args,
		}, nil)
		defer speaker.Close()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "astra — model %s at %s (/quit to exit)\n", a.cfg.Server.Model, a.cfg.Server.URL)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		// Transcribed input often carries the wake phrase; drop it so it
		// never reaches the model.
		if voice.ContainsWakeWord(line) {
			line = voice.StripWakeWord(line)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/clear":
			if err := a.orch.ClearAllMessages(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "error: clear history: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "history cleared")
			continue
		}

		streamed := false
		emit := func(e chat.Event) {
			switch e.Kind {
			case chat.EventSentence:
				if speaker != nil && a.settings.VoiceOutputEnabled() {
					speaker.Enqueue(e.Content)
				}
			case chat.EventContent:
				streamed = true
				fmt.Fprint(out, e.Content)
			case chat.EventDone:
				if !streamed {
					// Locally answered turn (memory confirmation): nothing
					// was streamed, print the full response.
					fmt.Fprint(out, e.FullResponse)
				}
				fmt.Fprintln(out)
			case chat.EventError:
				fmt.Fprintf(os.Stderr, "\nerror: %s\n", e.ErrMsg)
			}
		}
		// The failure path already printed; keep the REPL alive.
		_ = a.orch.ProcessUserMessage(cmd.Context(), line, emit)
	}
}
