// ABOUTME: Linear resampler for normalized float samples
// ABOUTME: Converts decoded channels to the playback device rate
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts interleaved input samples at inputRate into output at
// outputRate and returns the number of samples written. The final input
// frame is only used as an interpolation endpoint.
func (r *Resampler) Resample(input []float64, output []float64) int {
	if len(input) == 0 || r.channels <= 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := r.position - float64(inputIdx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := input[inputIdx*r.channels+ch]
			s2 := input[(inputIdx+1)*r.channels+ch]
			output[outIdx*r.channels+ch] = s1*(1.0-frac) + s2*frac
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep the fractional part for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset clears the interpolation position
func (r *Resampler) Reset() {
	r.position = 0.0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}

// Channels resamples whole per-channel buffers. Equal rates return the
// input unchanged.
func Channels(channels [][]float64, inputRate, outputRate int) [][]float64 {
	if inputRate == outputRate || inputRate <= 0 || outputRate <= 0 {
		return channels
	}

	out := make([][]float64, len(channels))
	for ch, samples := range channels {
		r := New(inputRate, outputRate, 1)
		buf := make([]float64, r.OutputSamplesNeeded(len(samples))+1)
		n := r.Resample(samples, buf)
		out[ch] = buf[:n]
	}
	return out
}
