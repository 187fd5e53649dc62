package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/filereader"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
	"github.com/chengang12345632/media-test-sub001/internal/transport"
)

// uploadFile streams one recording's chunks to the platform as
// VideoSegment messages, pacing sends by each chunk's own duration. The
// session ID carried on the wire is informational only: the platform
// already knows which session a connection belongs to from the QUIC
// connection itself (internal/transport.Listener.readSegmentStream never
// reads it back out), so there is no handshake round-trip that hands the
// device its platform-minted session ID.
func uploadFile(ctx context.Context, client *transport.DeviceClient, deviceID, directory, filename string, log *slog.Logger) error {
	path := filepath.Join(directory, filename)
	reader, err := filereader.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	log.Info("uploading recording", "file", filename)
	sent := 0
	for {
		chunk, err := reader.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read chunk from %s: %w", path, err)
		}

		// Timestamp carries the device's send time for Live-origin segments
		// (segment.VideoSegment's own invariant), not the file-relative
		// position filereader reports, so the platform's latency monitor
		// can extract T1 from it (spec §4.8) the instant it's received.
		sendTime := float64(time.Now().UnixNano()) / 1e9
		seg := segment.New(sendTime, chunk.Duration, chunk.Data, chunk.Keyframe, segment.H264Raw, segment.Live)
		if err := client.SendSegment(ctx, deviceID, seg); err != nil {
			return fmt.Errorf("send segment from %s: %w", path, err)
		}
		sent++

		if chunk.Duration > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(chunk.Duration * float64(time.Second))):
			}
		}
	}

	log.Info("finished uploading recording", "file", filename, "segments_sent", sent)
	return nil
}
