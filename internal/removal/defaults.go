package removal

// DefaultAllowList names the inbox packages a safe-mode run keeps.
// Overridable from the command line and the tool configuration file.
var DefaultAllowList = []string{
	"Microsoft.WindowsStore_8wekyb3d8bbwe",
	"Microsoft.StorePurchaseApp_8wekyb3d8bbwe",
	"Microsoft.DesktopAppInstaller_8wekyb3d8bbwe",
	"Microsoft.WindowsCalculator_8wekyb3d8bbwe",
	"Microsoft.WindowsNotepad_8wekyb3d8bbwe",
	"Microsoft.Windows.Photos_8wekyb3d8bbwe",
	"Microsoft.ScreenSketch_8wekyb3d8bbwe",
	"Microsoft.WindowsTerminal_8wekyb3d8bbwe",
	"Microsoft.SecHealthUI_8wekyb3d8bbwe",
	"Microsoft.AAD.BrokerPlugin_cw5n1h2txyewy",
}

// DefaultAllowPatterns keep runtime and shell dependency families that
// ship under versioned names.
var DefaultAllowPatterns = []string{
	"Microsoft.VCLibs.*",
	"Microsoft.NET.*",
	"Microsoft.UI.Xaml.*",
	"Microsoft.WindowsAppRuntime.*",
	"MicrosoftWindows.Client.*",
	"windows.immersivecontrolpanel_*",
}
