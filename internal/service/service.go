// Package service defines the web applications loft can manage.
package service

import "fmt"

// Definition describes one managed web application: where it lives on the
// web, how it is named on the session bus, and which icons it uses.
type Definition struct {
	// Name is the machine name ("whatsapp"), used for socket paths,
	// profile directories, and config files.
	Name string

	// DisplayName is shown in menus, tooltips, and desktop entries.
	DisplayName string

	// URL is the web application opened in the browser's --app mode.
	URL string

	// BusName is the CamelCase segment of the service's D-Bus name.
	BusName string

	// AppIconURL is where the application icon is downloaded from.
	AppIconURL string

	// AppIconFilename is the local filename for the app icon under
	// ~/.local/share/loft/icons/.
	AppIconFilename string

	// TrayIconURL is where the symbolic tray icon is downloaded from.
	TrayIconURL string

	// BrowserDesktopID is the desktop-entry id the browser generates for
	// this URL in --app mode. The supervisor rewrites that entry after
	// every spawn because the generated one breaks notifications.
	BrowserDesktopID string
}

// TrayIconName returns the XDG icon theme name for the tray icon. The
// -symbolic suffix lets GNOME recolour it to match the panel.
func (d *Definition) TrayIconName() string {
	return fmt.Sprintf("loft-%s-symbolic", d.Name)
}

// AppIconName returns the XDG icon theme name for the application icon,
// referenced by desktop and autostart entries.
func (d *Definition) AppIconName() string {
	return "loft-" + d.Name
}

// WMClass returns the window class the browser is launched with, also
// used as StartupWMClass in desktop entries.
func (d *Definition) WMClass() string {
	return "loft-" + d.Name
}

const iconBaseURL = "https://raw.githubusercontent.com/loft-linux/loft/main/assets/icons"

// WhatsApp is the WhatsApp Web service.
var WhatsApp = Definition{
	Name:             "whatsapp",
	DisplayName:      "WhatsApp",
	URL:              "https://web.whatsapp.com/",
	BusName:          "WhatsApp",
	AppIconURL:       iconBaseURL + "/whatsapp.svg",
	AppIconFilename:  "whatsapp.svg",
	TrayIconURL:      iconBaseURL + "/whatsapp-symbolic.svg",
	BrowserDesktopID: "chrome-web.whatsapp.com__-Default",
}

// Messenger is the Facebook Messenger service.
var Messenger = Definition{
	Name:             "messenger",
	DisplayName:      "Facebook Messenger",
	URL:              "https://facebook.com/messages/",
	BusName:          "Messenger",
	AppIconURL:       iconBaseURL + "/messenger.svg",
	AppIconFilename:  "messenger.svg",
	TrayIconURL:      iconBaseURL + "/messenger-symbolic.svg",
	BrowserDesktopID: "chrome-facebook.com_messages_-Default",
}

// All lists every built-in service.
var All = []*Definition{&WhatsApp, &Messenger}

// Lookup returns the definition for a service name.
func Lookup(name string) (*Definition, error) {
	for _, d := range All {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown service %q (available: whatsapp, messenger)", name)
}
