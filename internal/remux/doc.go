// Package remux turns a finalized subtitle job into an ffmpeg invocation, runs
// it under a hard timeout, and verifies the produced file.
//
// NewCommand is pure: it maps every source video and audio stream, drops the
// source's own subtitles, and appends the job's subtitles in order with the
// codec the output container accepts (mov_text for MP4, ass or srt for MKV,
// srt otherwise). Builder adds the on-disk precondition checks. Executor
// distinguishes non-zero exits, timeouts, and "success" runs that left no
// output. Verify compares subtitle track counts after the fact and only warns.
package remux
