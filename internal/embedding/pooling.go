package embedding

import "github.com/hyperjump/scireview/pkg/utils"

// DefaultONNXOutput is the output tensor of exported sentence-transformer models.
const DefaultONNXOutput = "last_hidden_state"

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	Name       string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	// OutputName is the [1, tokens, dims] hidden-state output. Defaults to DefaultONNXOutput.
	OutputName string
}

// meanPool averages the token vectors of hidden ([tokens*dims], row per token)
// whose mask is set, then L2-normalises the result.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for t, m := range mask {
		if m == 0 || (t+1)*dims > len(hidden) {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	utils.NormalizeL2(out)
	return out
}
