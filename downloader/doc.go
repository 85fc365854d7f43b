// Package downloader implements the transfer pipeline behind the bot: a URL is
// probed, streamed in chunks to a local temporary file while progress is
// reported, then re-uploaded to the chat as a document.
//
// The package defines:
//   - SessionRegistry: the race-free set of in-flight transfers and their cancellation flags
//   - StreamingDownloader: chunked download with cooperative cancellation and size limits
//   - StreamingUploader: document upload with guaranteed temporary file cleanup
//   - Render and ProgressTracker: progress text rendering and emission cadence
//   - Orchestrator and Service: the per-request state machine and its bounded runner
//
// The chat transport, HTTP fetching and local storage are consumed through the
// Transport, Fetcher and Storage interfaces so the core never depends on a
// particular messaging SDK.
package downloader
