package cmd

import (
	"net"

	"github.com/nsxzhou1114/shock-api/internal/logger"
)

// printSystem 打印服务可访问的地址
func printSystem(port int) {
	for _, ip := range localIPv4List() {
		logger.Infof("shock-api 运行在： http://%s:%d/api", ip, port)
	}
}

// localIPv4List 获取本机所有IPv4地址
func localIPv4List() (ipList []string) {
	interfaces, err := net.Interfaces()
	if err != nil {
		logger.Errorf("获取网卡列表失败: %v", err)
		return []string{"127.0.0.1"}
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				ipList = append(ipList, ip4.String())
			}
		}
	}
	if len(ipList) == 0 {
		ipList = append(ipList, "127.0.0.1")
	}
	return
}
