package capture

// Config describes how the capture device is opened.
type Config struct {
	SampleRate   int
	ChunkSize    int
	Channels     int
	ChannelIndex int
	DeviceMatch  string
}
