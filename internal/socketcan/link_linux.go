//go:build linux

package socketcan

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// SetLinkUp brings the CAN network interface up via rtnetlink, sparing the
// operator a separate "ip link set up" before starting.
func SetLinkUp(iface string) error { return setLinkFlags(iface, unix.IFF_UP) }

// SetLinkDown takes the CAN network interface down.
func SetLinkDown(iface string) error { return setLinkFlags(iface, 0) }

func setLinkFlags(iface string, flags uint32) error {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return fmt.Errorf("if %q: %w", iface, err)
	}
	c, err := netlink.Dial(unix.NETLINK_ROUTE, nil)
	if err != nil {
		return fmt.Errorf("dial netlink: %w", err)
	}
	defer c.Close()

	req := netlink.Message{
		Header: netlink.Header{
			Type:  unix.RTM_NEWLINK,
			Flags: netlink.Request | netlink.Acknowledge,
		},
		Data: marshalIfInfo(unix.IfInfomsg{
			Index:  int32(ifi.Index),
			Flags:  flags,
			Change: unix.IFF_UP,
		}),
	}
	msgs, err := c.Execute(req)
	if err != nil {
		return fmt.Errorf("set link %s flags: %w", iface, err)
	}
	if len(msgs) > 1 {
		return fmt.Errorf("set link %s: expected 1 reply, got %d", iface, len(msgs))
	}
	return nil
}

// marshalIfInfo lays out struct ifinfomsg the way the kernel expects it.
func marshalIfInfo(ifi unix.IfInfomsg) []byte {
	buf := make([]byte, 0, unix.SizeofIfInfomsg)
	buf = append(buf, ifi.Family, 0) // family + reserved pad
	buf = binary.LittleEndian.AppendUint16(buf, ifi.Type)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(ifi.Index))
	buf = binary.LittleEndian.AppendUint32(buf, ifi.Flags)
	buf = binary.LittleEndian.AppendUint32(buf, ifi.Change)
	return buf
}
