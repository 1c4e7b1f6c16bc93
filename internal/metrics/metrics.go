package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_frames_relayed_total",
		Help: "Frames forwarded from the source into the recording queue",
	}, []string{"camera"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_frames_dropped_total",
		Help: "Frames dropped because the recording queue was full",
	}, []string{"camera"})

	FramesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_frames_written_total",
		Help: "Frames written to the encoder, including duplicates",
	}, []string{"camera"})

	FramesDuplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_frames_duplicated_total",
		Help: "Frames re-emitted to hold cadence during source stalls",
	}, []string{"camera"})

	SegmentsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_segments_opened_total",
		Help: "Segment files opened",
	}, []string{"camera"})

	SegmentsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_segments_closed_total",
		Help: "Segment files closed and finalized",
	}, []string{"camera"})

	EncoderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camrec_encoder_failures_total",
		Help: "Encoder launch or pipe failures, by kind",
	}, []string{"camera", "kind"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camrec_queue_depth",
		Help: "Current number of frames buffered per camera",
	}, []string{"camera"})
)
