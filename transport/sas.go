package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// GenerateSASToken builds an Azure IoT Hub shared access signature for
// the given resource URI (hub hostname plus device path). The key is
// the device's base64-encoded primary key.
func GenerateSASToken(resourceURI, deviceKey string, expiry time.Time) (string, error) {
	key, err := base64.StdEncoding.DecodeString(deviceKey)
	if err != nil {
		return "", fmt.Errorf("device key is not valid base64: %v", err)
	}

	encodedURI := url.QueryEscape(resourceURI)
	se := strconv.FormatInt(expiry.Unix(), 10)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encodedURI + "\n" + se))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s",
		encodedURI, url.QueryEscape(signature), se), nil
}
