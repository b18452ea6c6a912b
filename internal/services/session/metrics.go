package session

import "deskbridge/internal/metrics"

// MetricsSnapshot implements metrics.Source. Phase and byte counts are live;
// the rest come from the last published Stats.
func (c *Controller) MetricsSnapshot() metrics.Snapshot {
	st := c.Stats()
	return metrics.Snapshot{
		Phase:          int(c.Phase()),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		MessagesIn:     st.Received,
		MessagesOut:    st.Sent,
		VideoDecoded:   st.Video.Decoded,
		VideoDropped:   st.Video.Dropped,
		FramesRendered: st.Render.FramesRendered,
		FPS:            st.Render.FPS,
		AudioDecoded:   st.Audio.Decoded,
		AudioDropped:   st.Audio.Dropped,
		InputSent:      st.Input.Sent,
	}
}

var _ metrics.Source = (*Controller)(nil)
