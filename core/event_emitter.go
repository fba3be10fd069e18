package orchestration

import "github.com/koscakluka/ema-calendar/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.SessionStateChanged:
			if opts.onSessionStateChanged != nil {
				opts.onSessionStateChanged(typedEvent.State)
			}
		case events.SessionStatus:
			if opts.onStatus != nil {
				opts.onStatus(typedEvent.Status, typedEvent.Message)
			}
		case events.UserTranscriptInterimUpdated:
			if opts.onInterimTranscription != nil {
				opts.onInterimTranscription(typedEvent.Transcript)
			}
		case events.UserTranscriptFinal:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.VoiceCommand:
			if opts.onVoiceCommand != nil {
				opts.onVoiceCommand(typedEvent.Command)
			}
		case events.Message:
			if opts.onMessage != nil {
				opts.onMessage(typedEvent)
			}
		case events.AssistantSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.AssistantSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.CommandStarted:
			if opts.onBusyStateChanged != nil {
				opts.onBusyStateChanged(true)
			}
		case events.CommandCompleted:
			if opts.onBusyStateChanged != nil {
				opts.onBusyStateChanged(false)
			}
		case events.DigestDelivered:
			if opts.onDigest != nil {
				opts.onDigest(typedEvent.Day, typedEvent.Summary)
			}
		}

		if opts.onEvent != nil {
			opts.onEvent(event)
		}
	}
}
