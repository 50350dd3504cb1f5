// Package frame is the transport envelope exchanged between sources, the
// pipeline runner and sinks. The payload is one encoded event.
package frame

import (
	"fmt"
	"time"
)

// Checkpoint locates a frame in its source (topic/partition/offset for
// Kafka, path/line for files).
type Checkpoint struct {
	Source    string
	Partition int32
	Offset    int64
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("%s[%d]@%d", c.Source, c.Partition, c.Offset)
}

type Frame struct {
	Key        []byte
	Value      []byte
	Headers    map[string][]byte
	Ts         time.Time
	Checkpoint Checkpoint

	// Done, when set by the source, is called once the frame's event is
	// finished with: published to every sink, or skipped under the log
	// policy. The source may commit the frame's position from then on.
	Done func()
}

// Complete calls Done if the source asked for it.
func (f *Frame) Complete() {
	if f.Done != nil {
		f.Done()
	}
}
