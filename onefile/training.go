package onefile

// DefaultTrainingThreshold is the default number of accumulated list
// bytes a compressible line type's histogram collects before the
// writer builds its Huffman table and switches that line type to
// compressed mode. Overridable per WriteConfig.
const DefaultTrainingThreshold = 4 * 1024 * 1024

// WriteConfig controls tunables for a binary writer: the codec
// training threshold, and (for the reference CLI and parallel fan-out)
// the number of sibling writers to create.
type WriteConfig struct {
	TrainingThreshold int64
	NThreads          int
	NoASCIIHeader     bool
}

func (c WriteConfig) threshold() int64 {
	if c.TrainingThreshold > 0 {
		return c.TrainingThreshold
	}
	return DefaultTrainingThreshold
}

// train folds data into li's histogram if it is a compressible byte
// list not yet using an active codec, and builds the codec once the
// accumulated byte count reaches threshold. It reports whether this
// call caused the codec to become active.
func (li *lineInfo) train(data []byte, threshold int64) (bool, error) {
	if li.huffman == nil || li.useCodec {
		return false, nil
	}
	if err := li.huffman.AddSample(data); err != nil {
		return false, err
	}
	li.trainedBytes += int64(len(data))
	if li.trainedBytes < threshold {
		return false, nil
	}
	if err := li.huffman.Build(true); err != nil {
		return false, err
	}
	li.codec = li.huffman
	li.useCodec = true
	return true, nil
}
