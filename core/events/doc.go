// Package events defines the typed event contract of the voice controller.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - user_input.*
//   - command.*
//   - assistant_speech.*
//   - chat.*
//   - digest.*
//
// session events
//
//   - SessionStateChanged (session.state_changed): the recognition session
//     moved between stopped, starting, listening and awake.
//   - SessionStatus (session.status): user-facing status line update,
//     including degraded and fatal recognition errors.
//
// user_input events
//
//   - UserTranscriptInterimUpdated (user_input.transcript_interim_updated):
//     mutable interim transcript snapshot.
//   - UserTranscriptFinal (user_input.transcript_final): final transcript of
//     an utterance, before wake word gating.
//   - VoiceCommand (user_input.voice_command): command text extracted after
//     the wake word.
//
// command events
//
//   - CommandStarted (command.started): a command was handed to the executor.
//   - CommandCompleted (command.completed): the executor produced a response.
//
// assistant_speech events
//
//   - AssistantSpeechStarted (assistant_speech.started): playback started.
//   - AssistantSpeechEnded (assistant_speech.ended): playback finished or was
//     cut short; Canceled tells which.
//
// chat events
//
//   - Message (chat.message): a line of the conversation history.
//
// digest events
//
//   - DigestDelivered (digest.delivered): the daily digest for Day was
//     generated.
package events
