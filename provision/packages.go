package provision

import (
	"strings"

	"github.com/projecteru2/debridctl/types"
)

const (
	dockerInstallScript = "curl -fsSL https://get.docker.com | sh"
	rcloneInstallScript = "curl -fsSL https://rclone.org/install.sh | bash"
)

// packageSet maps a logical package to its name under each manager.
type packageSet map[types.PackageManager][]string

var (
	commonPackages = packageSet{
		types.PackageManagerApt:    {"curl", "ca-certificates", "gnupg", "tar", "unzip"},
		types.PackageManagerDnf:    {"curl", "ca-certificates", "gnupg2", "tar", "unzip"},
		types.PackageManagerYum:    {"curl", "ca-certificates", "gnupg2", "tar", "unzip"},
		types.PackageManagerPacman: {"curl", "ca-certificates", "gnupg", "tar", "unzip"},
		types.PackageManagerZypper: {"curl", "ca-certificates", "gpg2", "tar", "unzip"},
	}
	fusePackages = packageSet{
		types.PackageManagerApt:    {"fuse3"},
		types.PackageManagerDnf:    {"fuse3"},
		types.PackageManagerYum:    {"fuse"},
		types.PackageManagerPacman: {"fuse3"},
		types.PackageManagerZypper: {"fuse3"},
	}
	composePackages = packageSet{
		types.PackageManagerApt:    {"docker-compose-plugin"},
		types.PackageManagerDnf:    {"docker-compose-plugin"},
		types.PackageManagerYum:    {"docker-compose-plugin"},
		types.PackageManagerPacman: {"docker-compose"},
		types.PackageManagerZypper: {"docker-compose"},
	}
	// Distros the convenience script does not cover get docker from their
	// own repositories.
	nativeDocker = packageSet{
		types.PackageManagerPacman: {"docker", "docker-compose"},
		types.PackageManagerZypper: {"docker", "docker-compose"},
	}
)

// installCommand builds a non-interactive install for pkgs.
func installCommand(pm types.PackageManager, pkgs []string) string {
	list := strings.Join(pkgs, " ")
	switch pm {
	case types.PackageManagerDnf:
		return "dnf install -y " + list
	case types.PackageManagerYum:
		return "yum install -y " + list
	case types.PackageManagerPacman:
		return "pacman -Sy --noconfirm --needed " + list
	case types.PackageManagerZypper:
		return "zypper --non-interactive install " + list
	default:
		return "apt-get update -qq && DEBIAN_FRONTEND=noninteractive apt-get install -y -qq " + list
	}
}

func (s packageSet) forManager(pm types.PackageManager) []string {
	if p, ok := s[pm]; ok {
		return p
	}
	return s[types.PackageManagerApt]
}
