/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// Engine rejections surfaced to clients as error messages. Every
// operation validates before it mutates, so a rejected call never leaves
// a room partially updated.
var (
	errRoomNotFound   = errors.New("room not found")
	errGameInProgress = errors.New("game already in progress")
	errNotHost        = errors.New("only the host can do that")
	errTooFewPlayers  = errors.New("need at least 3 players to start")
	errWrongPhase     = errors.New("action not valid in the current phase")
	errNotYourTurn    = errors.New("not your turn")
	errInvalidTarget  = errors.New("invalid target")
	errAlreadyVoted   = errors.New("already voted this round")
	errNotMrWhite     = errors.New("only Mr. White can guess")
	errNotInRoom      = errors.New("not in a room")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}
