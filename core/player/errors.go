package player

import "errors"

var (
	ErrNoActivePlaylist = errors.New("no playlist is currently active")
	ErrInvalidLoopMode  = errors.New("invalid loop mode, use off, single or all")
	ErrAtEnd            = errors.New("already at end of playlist")
	ErrInvalidDirection = errors.New("invalid skip direction, use next or previous")
)
