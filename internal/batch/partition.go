package batch

// Partition splits resources into consecutive groups of at most size
// elements, preserving order. The last group may be smaller. A size below 1
// is treated as DefaultGroupSize.
//
// The groups share resources' backing array.
func Partition(resources []string, size int) [][]string {
	if size < 1 {
		size = DefaultGroupSize
	}
	groups := make([][]string, 0, (len(resources)+size-1)/size)
	for i := 0; i < len(resources); i += size {
		end := i + size
		if end > len(resources) {
			end = len(resources)
		}
		groups = append(groups, resources[i:end:end])
	}
	return groups
}
