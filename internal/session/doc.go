// Package session models one user's video-plus-subtitles collection as a
// sealed state value (Idle, Collecting, Finalizing) and stores sessions by
// user identity.
//
// Transitions reject out-of-stage input with typed errors and leave the
// session unchanged. Subtitle indices are dense and follow upload order, which
// is also the track order of the produced file. A language can be chosen once
// per subtitle; unchosen subtitles stay "und".
package session
