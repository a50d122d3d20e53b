package ports

import "context"

// BroadcastController is the out-of-band control channel to the media
// engine. StopLive kicks whatever source currently feeds the live input;
// it is fire-and-forget and never confirms the disconnect.
type BroadcastController interface {
	StopLive(ctx context.Context) error
}
