package browser

// stealthScript runs before any page script and scrubs the signals headless
// detection keys on: the automation flag, the empty plugin list, and the
// missing window.chrome object.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', {
	get: () => [
		{ name: 'PDF Viewer', filename: 'internal-pdf-viewer' },
		{ name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer' },
		{ name: 'Chromium PDF Viewer', filename: 'internal-pdf-viewer' }
	]
});
window.chrome = window.chrome || { runtime: {} };
const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: originalQuery(parameters)
);
`
