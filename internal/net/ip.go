package net

import (
	"net"
	"strconv"
)

// OutgoingIP finds the preferred local address to put into share URLs.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// If we can't reach the internet, fall back to the local interfaces.
		return localIPFallback()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func localIPFallback() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}
	return "127.0.0.1"
}

// ShareURL is the relay address other participants can dial.
func ShareURL(port int) string {
	return "ws://" + net.JoinHostPort(OutgoingIP(), strconv.Itoa(port)) + "/"
}
