package utils

import (
	"os"
	"path/filepath"
)

const appDirName = "polypanel"

// GetConfigDir 获取跨平台的配置目录
// 优先级：POLYPANEL_CONFIG_HOME > %APPDATA%/polypanel > $XDG_CONFIG_HOME/polypanel > ~/.config/polypanel
func GetConfigDir() (string, error) {
	if configHome := os.Getenv("POLYPANEL_CONFIG_HOME"); configHome != "" {
		return configHome, nil
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appDirName), nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}

// ConfigFilePath 配置文件的完整路径
func ConfigFilePath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LogFilePath 默认日志文件路径
func LogFilePath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", appDirName+".log"), nil
}
