package redislock

import "encoding/json"

func encodePayload(p lockPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodePayload(raw string) (lockPayload, error) {
	var p lockPayload
	err := json.Unmarshal([]byte(raw), &p)
	return p, err
}
