package ingest

// DefaultBatchSize 单次提交的卡密数量上限，取值需低于远端语句的绑定参数上限。
const DefaultBatchSize = 50

// Chunk 把卡密序列按 batchSize 切成连续分片，保持顺序，末批允许不满。
// batchSize 非正时按 DefaultBatchSize 处理。返回的分片共享底层数组，不复制。
func Chunk(keys []string, batchSize int) [][]string {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if len(keys) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(keys)+batchSize-1)/batchSize)
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		batches = append(batches, keys[start:end])
	}
	return batches
}
