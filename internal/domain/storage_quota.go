package domain

type QuotaInfo struct {
	TotalSpace     int64   `json:"total_space"`
	UsedSpace      int64   `json:"used_space"`
	AvailableSpace int64   `json:"available_space"`
	UsagePercent   float64 `json:"usage_percent"`
}

// NewQuotaInfo считает показатели квоты из занятого объема и емкости
func NewQuotaInfo(used, capacity int64) QuotaInfo {
	info := QuotaInfo{
		TotalSpace:     capacity,
		UsedSpace:      used,
		AvailableSpace: capacity - used,
	}
	if info.AvailableSpace < 0 {
		info.AvailableSpace = 0
	}
	if capacity > 0 {
		info.UsagePercent = float64(used) / float64(capacity) * 100
	}
	return info
}
