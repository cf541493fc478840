package browser

// metricsScript reports the document height and how many images have
// materialized. An image counts as loaded when complete with a non-zero
// natural height.
const metricsScript = `(() => {
	const body = document.body || document.documentElement;
	const images = Array.from(document.images);
	return {
		scrollHeight: body ? body.scrollHeight : 0,
		images: images.length,
		loadedImages: images.filter(img => img.complete && img.naturalHeight !== 0).length,
	};
})()`

const scrollByScript = `window.scrollBy(0, %d)`

const scrollToScript = `window.scrollTo(%d, %d)`
