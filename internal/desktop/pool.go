package desktop

import "sync"

// packetBufPool pools byte buffers sized for a broadcast payload
// ([meta byte][compressed frame][magic trailer]). The capture and broadcast
// path does not use it: writeVideoFrame writes those parts through
// net.Buffers without assembling them into one buffer.
var packetBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 64*1024)
	},
}

func getPacketBuf() []byte {
	return packetBufPool.Get().([]byte)[:0]
}

func putPacketBuf(buf []byte) {
	if cap(buf) > 4*1024*1024 {
		return // don't pool oversized buffers
	}
	packetBufPool.Put(buf) //nolint:staticcheck // intentional re-slice to len 0 on Get
}
