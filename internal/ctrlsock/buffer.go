package ctrlsock

import "sync"

// MaxFrameLen is the largest datagram this transport will read.
// wpa_supplicant's control protocol has no framing beyond the
// datagram boundary; a frame that fills the buffer is treated as
// truncated rather than silently accepted (see Socket.Receive).
const MaxFrameLen = 65536

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, MaxFrameLen)
		return &b
	},
}

// getBuffer returns a MaxFrameLen-sized buffer from the pool.
func getBuffer() *[]byte { return bufferPool.Get().(*[]byte) }

// putBuffer returns buf to the pool for reuse.
func putBuffer(buf *[]byte) { bufferPool.Put(buf) }
